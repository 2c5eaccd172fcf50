package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskGate(t *testing.T) {
	tests := []struct {
		failed   int
		highRisk bool
		cod      bool
	}{
		{0, false, true},
		{2, false, true},
		{3, true, false},
		{7, true, false},
	}
	for _, tt := range tests {
		u := &User{FailedDeliveries: tt.failed}
		assert.Equal(t, tt.highRisk, u.IsHighRisk(), "failed=%d", tt.failed)
		assert.Equal(t, tt.cod, CODAllowed(u), "failed=%d", tt.failed)
	}
}

func TestCustomizationValidate(t *testing.T) {
	assert.NoError(t, Customization{}.Validate())
	assert.NoError(t, Customization{Kind: CustomizationSketch, Sketch: &SketchDetails{Size: "A4", Pieces: 1}}.Validate())
	assert.NoError(t, Customization{Kind: CustomizationCraft, Craft: &CraftDetails{CraftType: "resin"}}.Validate())

	assert.ErrorIs(t, Customization{Kind: CustomizationSketch}.Validate(), ErrValidation)
	assert.ErrorIs(t, Customization{Kind: CustomizationSketch, Sketch: &SketchDetails{Size: "A1", Pieces: 1}}.Validate(), ErrValidation)
	assert.ErrorIs(t, Customization{Kind: CustomizationCraft, Craft: &CraftDetails{}}.Validate(), ErrValidation)
	assert.ErrorIs(t, Customization{Craft: &CraftDetails{CraftType: "x"}}.Validate(), ErrValidation)
	assert.ErrorIs(t, Customization{Kind: "poster"}.Validate(), ErrValidation)
}
