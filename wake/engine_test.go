package wake

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/windfarm-yield/model"
)

func testTurbine(t *testing.T) *model.TurbineSpec {
	t.Helper()
	spec, err := model.NewTurbineSpec("T1", 100, 120, 3000, []model.CurvePoint{
		{WindSpeed: 3, PowerKW: 0, Ct: 0.8},
		{WindSpeed: 12, PowerKW: 3000, Ct: 0.7},
		{WindSpeed: 25, PowerKW: 3000, Ct: 0.1},
	})
	if err != nil {
		t.Fatalf("NewTurbineSpec: %v", err)
	}
	return spec
}

// Two turbines in a north-south row, 5 rotor diameters apart.
func testLayout(t *testing.T) *model.Layout {
	t.Helper()
	l, err := model.NewLayout([]model.Position{{X: 0, Y: 600}, {X: 0, Y: 0}}, "local")
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

func testResource(t *testing.T, samples ...model.WindSample) *model.WindResource {
	t.Helper()
	r, err := model.NewWindResource(samples, 100, "test", time.Time{}, 0)
	if err != nil {
		t.Fatalf("NewWindResource: %v", err)
	}
	return r
}

func TestParseModel(t *testing.T) {
	cases := map[string]Model{
		"NOJ":                 ModelNOJ,
		"jensen":              ModelNOJ,
		"Bastankhah_Gaussian": ModelBastankhahGaussian,
		"TurboPark":           ModelTurboPark,
		"fuga":                ModelFuga,
		"no-wake":             ModelNone,
	}
	for name, want := range cases {
		got, err := ParseModel(name)
		if err != nil || got != want {
			t.Errorf("ParseModel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseModel("Larsen"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("ParseModel(Larsen) error = %v, want ErrUnknownModel", err)
	}
}

func TestCapabilitiesRequire(t *testing.T) {
	caps := NewEngine().Capabilities()
	if err := caps.Require(ModelNOJ); err != nil {
		t.Fatalf("Require(NOJ): %v", err)
	}
	if err := caps.Require(ModelNone); err != nil {
		t.Fatalf("Require(None): %v", err)
	}
	if err := caps.Require(ModelFuga); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("Require(Fuga) error = %v, want ErrUnknownModel", err)
	}
	if err := caps.Require(Model(42)); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("Require(42) error = %v, want ErrUnknownModel", err)
	}
}

func TestEngineNoWakeMatchesPowerCurve(t *testing.T) {
	turbine := testTurbine(t)
	res := testResource(t, model.WindSample{Speed: 10, Direction: 0}, model.WindSample{Speed: 2, Direction: 0})
	out, err := NewEngine().Simulate(context.Background(), Request{Layout: testLayout(t), Turbine: turbine, Resource: res, Model: ModelNone})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if out.Variant != model.VariantNoWake {
		t.Fatalf("Variant = %q, want %q", out.Variant, model.VariantNoWake)
	}
	for i := 0; i < 2; i++ {
		if got, want := out.At(i, 0), turbine.PowerW(10); got != want {
			t.Fatalf("turbine %d power = %v, want %v", i, got, want)
		}
		if got := out.At(i, 1); got != 0 {
			t.Fatalf("turbine %d below cut-in = %v, want 0", i, got)
		}
	}
}

func TestEngineWakeReducesDownstreamOnly(t *testing.T) {
	turbine := testTurbine(t)
	// Wind from the north: turbine 1 at y=600 is upstream of turbine 2.
	res := testResource(t, model.WindSample{Speed: 10, Direction: 0})
	for _, m := range []Model{ModelNOJ, ModelBastankhahGaussian} {
		out, err := NewEngine().Simulate(context.Background(), Request{Layout: testLayout(t), Turbine: turbine, Resource: res, Model: m})
		if err != nil {
			t.Fatalf("%s: Simulate: %v", m, err)
		}
		free := turbine.PowerW(10)
		if got := out.At(0, 0); got != free {
			t.Fatalf("%s: upstream power = %v, want %v", m, got, free)
		}
		if got := out.At(1, 0); !(got < free) {
			t.Fatalf("%s: downstream power = %v, want below %v", m, got, free)
		}
	}
}

func TestEngineCrosswindNoInteraction(t *testing.T) {
	turbine := testTurbine(t)
	res := testResource(t, model.WindSample{Speed: 10, Direction: 90})
	out, err := NewEngine().Simulate(context.Background(), Request{Layout: testLayout(t), Turbine: turbine, Resource: res, Model: ModelNOJ})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	free := turbine.PowerW(10)
	if out.At(0, 0) != free || out.At(1, 0) != free {
		t.Fatalf("crosswind powers = %v/%v, want %v", out.At(0, 0), out.At(1, 0), free)
	}
}

func TestEngineRejectsUnsupportedModel(t *testing.T) {
	res := testResource(t, model.WindSample{Speed: 10, Direction: 0})
	_, err := NewEngine().Simulate(context.Background(), Request{Layout: testLayout(t), Turbine: testTurbine(t), Resource: res, Model: ModelTurboPark})
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("Simulate(TurboPark) error = %v, want ErrUnknownModel", err)
	}
}

func TestEngineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := testResource(t, model.WindSample{Speed: 10, Direction: 0})
	_, err := NewEngine().Simulate(ctx, Request{Layout: testLayout(t), Turbine: testTurbine(t), Resource: res, Model: ModelNOJ})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Simulate error = %v, want context.Canceled", err)
	}
}

func TestEngineThrustAboveOneStaysFinite(t *testing.T) {
	// Some thrust tables report Ct > 1 near cut-in.
	turbine, err := model.NewTurbineSpec("T1", 100, 120, 3000, []model.CurvePoint{
		{WindSpeed: 3, PowerKW: 0, Ct: 1.1},
		{WindSpeed: 12, PowerKW: 3000, Ct: 1.05},
		{WindSpeed: 25, PowerKW: 3000, Ct: 0.1},
	})
	if err != nil {
		t.Fatalf("NewTurbineSpec: %v", err)
	}
	res := testResource(t, model.WindSample{Speed: 6, Direction: 0}, model.WindSample{Speed: 11, Direction: 0})
	for _, m := range []Model{ModelNOJ, ModelBastankhahGaussian} {
		out, err := NewEngine().Simulate(context.Background(), Request{Layout: testLayout(t), Turbine: turbine, Resource: res, Model: m})
		if err != nil {
			t.Fatalf("%s: Simulate: %v", m, err)
		}
		for step := 0; step < 2; step++ {
			got := out.At(1, step)
			if math.IsNaN(got) || got < 0 || got > turbine.PowerW(res.Sample(step).Speed) {
				t.Fatalf("%s: downstream power at step %d = %v, want finite and within free stream", m, step, got)
			}
		}
	}
}

func TestJensenDeficitClampsThrust(t *testing.T) {
	if got := jensenDeficit(1.2, 120, 600, 0, defaultJensenDecay); math.IsNaN(got) || got <= 0 || got > 1 {
		t.Fatalf("jensenDeficit(Ct=1.2) = %v, want in (0, 1]", got)
	}
}

func TestWakeDecayWidensWake(t *testing.T) {
	turbine := testTurbine(t)
	res := testResource(t, model.WindSample{Speed: 10, Direction: 0})
	req := Request{Layout: testLayout(t), Turbine: turbine, Resource: res, Model: ModelNOJ}

	narrow, err := NewEngine().Simulate(context.Background(), req)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	wide, err := NewEngine(WithJensenDecay(0.1)).Simulate(context.Background(), req)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// A faster-growing wake recovers sooner on the centreline.
	if !(wide.At(1, 0) > narrow.At(1, 0)) {
		t.Fatalf("downstream power with k=0.1 = %v, want above default %v", wide.At(1, 0), narrow.At(1, 0))
	}
}
