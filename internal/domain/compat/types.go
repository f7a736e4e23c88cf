package compat

// BloodGroup is an ABO/Rh blood group identifier.
type BloodGroup string

const (
	ONeg  BloodGroup = "O-"
	OPos  BloodGroup = "O+"
	ANeg  BloodGroup = "A-"
	APos  BloodGroup = "A+"
	BNeg  BloodGroup = "B-"
	BPos  BloodGroup = "B+"
	ABNeg BloodGroup = "AB-"
	ABPos BloodGroup = "AB+"
)

// Valid reports whether bg is one of the eight recognized blood groups.
func (bg BloodGroup) Valid() bool {
	_, ok := donorCompatibility[bg]
	return ok
}

// OrganType identifies a transplantable organ or tissue.
type OrganType string

const (
	Heart          OrganType = "Heart"
	Liver          OrganType = "Liver"
	Kidney         OrganType = "Kidney"
	Lungs          OrganType = "Lungs"
	Pancreas       OrganType = "Pancreas"
	Corneas        OrganType = "Corneas"
	Skin           OrganType = "Skin"
	Bone           OrganType = "Bone"
	SmallIntestine OrganType = "Small_Intestine"
	HeartValves    OrganType = "Heart_Valves"
)

// OrganTypes lists every recognized organ type in a stable order.
func OrganTypes() []OrganType {
	return []OrganType{
		Heart, Liver, Kidney, Lungs, Pancreas,
		Corneas, Skin, Bone, SmallIntestine, HeartValves,
	}
}

// Valid reports whether ot is a recognized organ type.
func (ot OrganType) Valid() bool {
	_, ok := organConstraints[ot]
	return ok
}

// Urgency is a recipient's clinical priority classification.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)
