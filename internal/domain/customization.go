package domain

import "slices"

type CustomizationKind string

const (
	CustomizationNone   CustomizationKind = "none"
	CustomizationSketch CustomizationKind = "sketch"
	CustomizationCraft  CustomizationKind = "craft"
)

var SketchSizes = []string{"A5", "A4", "A3", "A2"}

type SketchDetails struct {
	Size           string `json:"size"`
	Frame          bool   `json:"frame"`
	Pieces         int    `json:"pieces"`
	ReferenceImage string `json:"referenceImage,omitempty"`
	Note           string `json:"note,omitempty"`
}

type CraftDetails struct {
	CraftType      string `json:"craftType"`
	CustomText     string `json:"customText,omitempty"`
	ReferenceImage string `json:"referenceImage,omitempty"`
	Note           string `json:"note,omitempty"`
}

// Customization is a tagged variant: Kind selects which of Sketch or Craft is set.
type Customization struct {
	Kind   CustomizationKind `json:"kind"`
	Sketch *SketchDetails    `json:"sketch,omitempty"`
	Craft  *CraftDetails     `json:"craft,omitempty"`
}

func (c Customization) IsZero() bool {
	return c.Kind == "" || c.Kind == CustomizationNone
}

// Validate checks that exactly the details matching Kind are present.
func (c Customization) Validate() error {
	switch c.Kind {
	case "", CustomizationNone:
		if c.Sketch != nil || c.Craft != nil {
			return NewValidationError("customization", "details given without a customization kind")
		}
		return nil
	case CustomizationSketch:
		if c.Sketch == nil || c.Craft != nil {
			return NewValidationError("customization.sketch", "sketch details are required")
		}
		if !slices.Contains(SketchSizes, c.Sketch.Size) {
			return NewValidationError("customization.sketch.size", "size must be one of A5, A4, A3, A2")
		}
		if c.Sketch.Pieces != 1 && c.Sketch.Pieces != 2 {
			return NewValidationError("customization.sketch.pieces", "pieces must be 1 or 2")
		}
		return nil
	case CustomizationCraft:
		if c.Craft == nil || c.Sketch != nil {
			return NewValidationError("customization.craft", "craft details are required")
		}
		if c.Craft.CraftType == "" {
			return NewValidationError("customization.craft.craftType", "craft type is required")
		}
		return nil
	default:
		return NewValidationError("customization.kind", "unknown customization kind "+string(c.Kind))
	}
}

