package catalog

import (
	"context"
	"fmt"
	"time"
)

// StaticCatalog serves a fixed doctor list held in memory.
type StaticCatalog struct {
	doctors []Doctor
	byID    map[string]int
}

func NewStaticCatalog(doctors []Doctor) *StaticCatalog {
	c := &StaticCatalog{
		doctors: make([]Doctor, len(doctors)),
		byID:    make(map[string]int, len(doctors)),
	}
	copy(c.doctors, doctors)
	for i, d := range c.doctors {
		c.byID[d.ID] = i
	}
	return c
}

func (c *StaticCatalog) Get(_ context.Context, id string) (*Doctor, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	d := c.doctors[i]
	return &d, nil
}

func (c *StaticCatalog) List(_ context.Context, specialty string) ([]Doctor, error) {
	out := make([]Doctor, 0, len(c.doctors))
	for _, d := range c.doctors {
		if matchesSpecialty(d, specialty) {
			out = append(out, d)
		}
	}
	return out, nil
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DefaultDoctors is the directory the portal launched with.
func DefaultDoctors() []Doctor {
	return []Doctor{
		{
			ID:              "doc-001",
			Name:            "Dr. Sarah Mitchell",
			Specialty:       "General Medicine",
			ExperienceYears: 12,
			Rating:          4.9,
			ImageURL:        "https://images.unsplash.com/photo-1559839734-2b71ea197ec2?w=400",
			WorkingDays:     weekdays,
			ConsultationFee: 75.00,
			Bio:             "Board-certified physician with expertise in preventive care and chronic disease management.",
		},
		{
			ID:              "doc-002",
			Name:            "Dr. James Chen",
			Specialty:       "Cardiology",
			ExperienceYears: 15,
			Rating:          4.8,
			ImageURL:        "https://images.unsplash.com/photo-1612349317150-e413f6a5b16d?w=400",
			WorkingDays:     []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			ConsultationFee: 150.00,
			Bio:             "Leading cardiologist specializing in heart health, prevention, and advanced cardiac care.",
		},
		{
			ID:              "doc-003",
			Name:            "Dr. Emily Rodriguez",
			Specialty:       "Dermatology",
			ExperienceYears: 8,
			Rating:          4.7,
			ImageURL:        "https://images.unsplash.com/photo-1594824476967-48c8b964273f?w=400",
			WorkingDays:     []time.Weekday{time.Tuesday, time.Thursday, time.Saturday},
			ConsultationFee: 120.00,
			Bio:             "Specialist in skin conditions, cosmetic dermatology, and preventive skin care.",
		},
		{
			ID:              "doc-004",
			Name:            "Dr. Michael Thompson",
			Specialty:       "Orthopedics",
			ExperienceYears: 18,
			Rating:          4.9,
			ImageURL:        "https://images.unsplash.com/photo-1537368910025-700350fe46c7?w=400",
			WorkingDays:     []time.Weekday{time.Monday, time.Tuesday, time.Thursday, time.Friday},
			ConsultationFee: 140.00,
			Bio:             "Expert orthopedic surgeon specializing in sports injuries and joint replacement.",
		},
		{
			ID:              "doc-005",
			Name:            "Dr. Lisa Patel",
			Specialty:       "Pediatrics",
			ExperienceYears: 10,
			Rating:          4.8,
			ImageURL:        "https://images.unsplash.com/photo-1651008376811-b90baee60c1f?w=400",
			WorkingDays:     []time.Weekday{time.Monday, time.Wednesday, time.Thursday, time.Saturday},
			ConsultationFee: 85.00,
			Bio:             "Compassionate pediatrician dedicated to children's health from infancy through adolescence.",
		},
		{
			ID:              "doc-006",
			Name:            "Dr. Robert Kim",
			Specialty:       "Neurology",
			ExperienceYears: 14,
			Rating:          4.7,
			ImageURL:        "https://images.unsplash.com/photo-1622253692010-333f2da6031d?w=400",
			WorkingDays:     []time.Weekday{time.Tuesday, time.Wednesday, time.Friday},
			ConsultationFee: 175.00,
			Bio:             "Neurologist with expertise in brain disorders, headaches, and neurological conditions.",
		},
	}
}
