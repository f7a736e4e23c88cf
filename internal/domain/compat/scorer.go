package compat

import "strings"

// Scoring weights. The factor weights sum to 100; bonus points on top are
// absorbed by the final clamp.
const (
	bloodWeight      = 35
	ageWeightMax     = 20
	urgencyWeightMax = 25
	distanceMax      = 15
	medicalMax       = 5

	sameGroupBonus     = 2
	nearUrgentBonus    = 3
	nearUrgentRadiusKm = 50
)

// ScoreInput carries everything the scorer needs about one donor/recipient
// pair for one organ.
type ScoreInput struct {
	Organ            OrganType
	DonorBlood       BloodGroup
	DonorAge         int
	RecipientBlood   BloodGroup
	RecipientAge     int
	Urgency          Urgency
	MedicalCondition string
	DistanceKm       float64
}

// Breakdown is the per-factor result of scoring one pair. Total is always
// in [0,100]; a Disqualified breakdown has Total 0 regardless of the other
// factors.
type Breakdown struct {
	Blood        int  `json:"blood"`
	Age          int  `json:"age"`
	Urgency      int  `json:"urgency"`
	Distance     int  `json:"distance"`
	MedicalRisk  int  `json:"medical_risk"`
	Bonus        int  `json:"bonus"`
	Total        int  `json:"total"`
	Disqualified bool `json:"disqualified"`
}

// Score computes the 0-100 compatibility score for a donor/recipient pair.
// Blood-group incompatibility is a hard veto: the pair is disqualified and
// every factor reads zero. The function is pure; identical inputs always
// produce identical output.
func Score(in ScoreInput) Breakdown {
	if !BloodCompatible(in.DonorBlood, in.RecipientBlood) {
		return Breakdown{Disqualified: true}
	}

	b := Breakdown{Blood: bloodWeight}
	b.Age = ageScore(in.Organ, in.DonorAge, in.RecipientAge)
	b.Urgency = urgencyScore(in.Urgency)
	b.Distance = distanceScore(in.DistanceKm)
	b.MedicalRisk = medicalRiskScore(in.MedicalCondition)

	if in.DonorBlood == in.RecipientBlood {
		b.Bonus += sameGroupBonus
	}
	if in.DistanceKm <= nearUrgentRadiusKm && in.Urgency == UrgencyHigh {
		b.Bonus += nearUrgentBonus
	}

	total := b.Blood + b.Age + b.Urgency + b.Distance + b.MedicalRisk + b.Bonus
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	b.Total = total
	return b
}

// ageScore contributes nothing when the donor exceeds the organ's age
// limit; the age-limit veto itself is enforced by the ranking filters.
func ageScore(organ OrganType, donorAge, recipientAge int) int {
	if donorAge > ConstraintsFor(organ).MaxDonorAge {
		return 0
	}
	diff := donorAge - recipientAge
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 5:
		return ageWeightMax
	case diff <= 10:
		return 17
	case diff <= 20:
		return 12
	case diff <= 30:
		return 7
	default:
		return 3
	}
}

func urgencyScore(u Urgency) int {
	switch u {
	case UrgencyHigh:
		return urgencyWeightMax
	case UrgencyMedium:
		return 18
	case UrgencyLow:
		return 10
	default:
		return 15
	}
}

func distanceScore(km float64) int {
	switch {
	case km <= 25:
		return distanceMax
	case km <= 100:
		return 12
	case km <= 300:
		return 8
	case km <= 500:
		return 4
	default:
		return 1
	}
}

// medicalRiskScore penalizes conditions that complicate transplantation.
// Active infection or malignancy weighs heaviest; chronic conditions such
// as diabetes or hypertension weigh less.
func medicalRiskScore(condition string) int {
	c := strings.ToLower(condition)
	if strings.Contains(c, "infection") || strings.Contains(c, "cancer") {
		return 1
	}
	if strings.Contains(c, "diabetes") || strings.Contains(c, "hypertension") {
		return 3
	}
	return medicalMax
}

// Quality maps a score to the qualitative label surfaced in rankings.
func Quality(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 65:
		return "Good"
	default:
		return "Fair"
	}
}
