package compat

// donorCompatibility maps a donor blood group to the recipient groups that
// can safely receive from it. O- is the universal donor; AB+ the universal
// recipient.
var donorCompatibility = map[BloodGroup][]BloodGroup{
	ONeg:  {ONeg, OPos, ANeg, APos, BNeg, BPos, ABNeg, ABPos},
	OPos:  {OPos, APos, BPos, ABPos},
	ANeg:  {ANeg, APos, ABNeg, ABPos},
	APos:  {APos, ABPos},
	BNeg:  {BNeg, BPos, ABNeg, ABPos},
	BPos:  {BPos, ABPos},
	ABNeg: {ABNeg, ABPos},
	ABPos: {ABPos},
}

// CompatibleRecipients returns the recipient blood groups a donor of the
// given group can donate to. Unknown groups return nil.
func CompatibleRecipients(donor BloodGroup) []BloodGroup {
	groups, ok := donorCompatibility[donor]
	if !ok {
		return nil
	}
	out := make([]BloodGroup, len(groups))
	copy(out, groups)
	return out
}

// BloodCompatible reports whether a recipient of group r can receive from a
// donor of group d.
func BloodCompatible(d, r BloodGroup) bool {
	for _, g := range donorCompatibility[d] {
		if g == r {
			return true
		}
	}
	return false
}

// Constraints holds the per-organ medical limits used during matching.
type Constraints struct {
	MaxDonorAge            int  `json:"max_donor_age"`
	CriticalViabilityHours int  `json:"critical_viability_hours"`
	SizeMatters            bool `json:"size_matters"`
}

var organConstraints = map[OrganType]Constraints{
	Heart:          {MaxDonorAge: 65, CriticalViabilityHours: 6, SizeMatters: true},
	Liver:          {MaxDonorAge: 70, CriticalViabilityHours: 12, SizeMatters: true},
	Kidney:         {MaxDonorAge: 75, CriticalViabilityHours: 36, SizeMatters: false},
	Lungs:          {MaxDonorAge: 65, CriticalViabilityHours: 6, SizeMatters: true},
	Pancreas:       {MaxDonorAge: 60, CriticalViabilityHours: 18, SizeMatters: false},
	Corneas:        {MaxDonorAge: 80, CriticalViabilityHours: 168, SizeMatters: false},
	Skin:           {MaxDonorAge: 80, CriticalViabilityHours: 120, SizeMatters: false},
	Bone:           {MaxDonorAge: 75, CriticalViabilityHours: 120, SizeMatters: false},
	SmallIntestine: {MaxDonorAge: 60, CriticalViabilityHours: 10, SizeMatters: true},
	HeartValves:    {MaxDonorAge: 70, CriticalViabilityHours: 72, SizeMatters: false},
}

// DefaultConstraints is applied to organ types without an explicit entry.
var DefaultConstraints = Constraints{MaxDonorAge: 70, CriticalViabilityHours: 24, SizeMatters: false}

// ConstraintsFor returns the constraint set for an organ type, falling back
// to DefaultConstraints when the type has no entry.
func ConstraintsFor(organ OrganType) Constraints {
	if c, ok := organConstraints[organ]; ok {
		return c
	}
	return DefaultConstraints
}
