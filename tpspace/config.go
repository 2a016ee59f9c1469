package tpspace

import (
	"encoding/json"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r2"

	"go.viam.com/tpnav/utils"
)

// defaultAlphaCount is used when a config does not discretize explicitly.
const defaultAlphaCount uint = 91

// HoloBlendConfig holds the recognized configuration attributes of a
// holonomic blend PTG. T_ramp, v_max_mps and w_max_dps are required and have
// no defaults; vxi and vyi are debug-only overrides for the initial velocity
// components. Marshaling a config writes the same keys back out.
type HoloBlendConfig struct {
	AlphaCount             uint    `json:"alpha_count,omitempty"`
	RefDistance            float64 `json:"ref_distance"`
	TRamp                  float64 `json:"T_ramp"`
	VMaxMps                float64 `json:"v_max_mps"`
	WMaxDps                float64 `json:"w_max_dps"`
	TurningRadiusReference float64 `json:"turningRadiusReference,omitempty"`

	VXi float64 `json:"vxi,omitempty"`
	VYi float64 `json:"vyi,omitempty"`
}

// Validate ensures all parts of the config are valid, combining every
// violation into one error.
func (cfg *HoloBlendConfig) Validate() error {
	var err error
	if cfg.RefDistance <= 0 {
		err = multierr.Combine(err, errors.New("ref_distance must be greater than zero"))
	}
	if cfg.TRamp <= 0 {
		err = multierr.Combine(err, errors.New("T_ramp must be greater than zero"))
	}
	if cfg.VMaxMps <= 0 {
		err = multierr.Combine(err, errors.New("v_max_mps must be greater than zero"))
	}
	if cfg.WMaxDps <= 0 {
		err = multierr.Combine(err, errors.New("w_max_dps must be greater than zero"))
	}
	return err
}

// ParseHoloBlendConfig decodes a JSON config, applying defaults for the
// optional attributes and validating the result.
func ParseHoloBlendConfig(data []byte) (*HoloBlendConfig, error) {
	cfg := &HoloBlendConfig{
		AlphaCount:             defaultAlphaCount,
		TurningRadiusReference: defaultTurningRadiusRef,
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse holonomic blend config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewHoloBlendPTGFromConfig builds a holonomic blend PTG from a validated
// config, converting w_max_dps to radians.
func NewHoloBlendPTGFromConfig(cfg *HoloBlendConfig, logger golog.Logger) (PTG, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	alphaCount := cfg.AlphaCount
	if alphaCount == 0 {
		alphaCount = defaultAlphaCount
	}
	turnRadRef := cfg.TurningRadiusReference
	if turnRadRef == 0 {
		turnRadRef = defaultTurningRadiusRef
	}
	ptg := &ptgHoloBlend{
		alphaCount: alphaCount,
		refDist:    cfg.RefDistance,
		tRamp:      cfg.TRamp,
		vMax:       cfg.VMaxMps,
		wMax:       utils.DegToRad(cfg.WMaxDps),
		turnRadRef: turnRadRef,
		curVel:     Twist2D{Linear: r2.Vec{X: cfg.VXi, Y: cfg.VYi}},
	}
	if err := ptg.validate(); err != nil {
		return nil, err
	}
	logger.Debugf("configured %s with %d paths", ptg.Description(), ptg.alphaCount)
	return ptg, nil
}

// Config returns the current parameter set in config form, with w_max
// converted back to degrees. This mirrors the keys ParseHoloBlendConfig
// recognizes.
func (ptg *ptgHoloBlend) Config() *HoloBlendConfig {
	return &HoloBlendConfig{
		AlphaCount:             ptg.alphaCount,
		RefDistance:            ptg.refDist,
		TRamp:                  ptg.tRamp,
		VMaxMps:                ptg.vMax,
		WMaxDps:                utils.RadToDeg(ptg.wMax),
		TurningRadiusReference: ptg.turnRadRef,
		VXi:                    ptg.curVel.Linear.X,
		VYi:                    ptg.curVel.Linear.Y,
	}
}
