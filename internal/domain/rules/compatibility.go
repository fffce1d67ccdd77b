package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

type Axis string

const (
	AxisCommunication Axis = "communication"
	AxisValues        Axis = "values"
	AxisExtraversion  Axis = "extraversion"
	AxisOpenness      Axis = "openness"
	AxisPlanning      Axis = "planning"
	AxisSociability   Axis = "sociability"
)

type Component string

const (
	ComponentPersonality          Component = "personality"
	ComponentInterests            Component = "interests"
	ComponentCommunication        Component = "communication"
	ComponentSociability          Component = "sociability"
	ComponentExtraversionOpenness Component = "extraversion_openness"
)

const (
	compatibilityExponent = 0.7
	alignmentWeight       = 0.7
	coverageWeight        = 0.3
	weightEpsilon         = 1e-9
)

// CanonicalAxes fixes the summation order so scores are symmetric bit for bit.
var CanonicalAxes = []Axis{
	AxisCommunication,
	AxisValues,
	AxisExtraversion,
	AxisOpenness,
	AxisPlanning,
	AxisSociability,
}

var AxisWeights = map[Axis]float64{
	AxisCommunication: 0.25,
	AxisValues:        0.20,
	AxisExtraversion:  0.20,
	AxisOpenness:      0.15,
	AxisPlanning:      0.10,
	AxisSociability:   0.10,
}

var componentOrder = []Component{
	ComponentPersonality,
	ComponentInterests,
	ComponentCommunication,
	ComponentSociability,
	ComponentExtraversionOpenness,
}

var ComponentWeights = map[Component]float64{
	ComponentPersonality:          0.35,
	ComponentInterests:            0.25,
	ComponentCommunication:        0.20,
	ComponentSociability:          0.10,
	ComponentExtraversionOpenness: 0.10,
}

// Breakdown holds sub-scores in [0,1]. Present reports which composite
// components took part; absent components are excluded from the weighting.
type Breakdown struct {
	Personality          float64
	Interests            float64
	Communication        float64
	Sociability          float64
	ExtraversionOpenness float64
	Present              map[Component]bool
	Score                int
}

type Subject struct {
	Traits    model.Traits
	Interests []model.Interest
}

func SubjectOf(p model.Profile) Subject {
	return Subject{Traits: p.Traits, Interests: p.Interests}
}

// ValidateWeights checks both weight tables sum to one.
func ValidateWeights() error {
	var axisSum float64
	for _, axis := range CanonicalAxes {
		axisSum += AxisWeights[axis]
	}
	if len(AxisWeights) != len(CanonicalAxes) || math.Abs(axisSum-1) > weightEpsilon {
		return fmt.Errorf("axis weights must sum to 1, got %f over %d axes", axisSum, len(AxisWeights))
	}

	var componentSum float64
	for _, c := range componentOrder {
		componentSum += ComponentWeights[c]
	}
	if len(ComponentWeights) != len(componentOrder) || math.Abs(componentSum-1) > weightEpsilon {
		return fmt.Errorf("component weights must sum to 1, got %f", componentSum)
	}
	return nil
}

// Score expects input already normalized at the profile boundary.
func Score(a, b Subject) Breakdown {
	out := Breakdown{Present: make(map[Component]bool, len(componentOrder))}

	if v, ok := personality(a.Traits, b.Traits); ok {
		out.Personality = v
		out.Present[ComponentPersonality] = true
	}
	if v, ok := interests(a.Interests, b.Interests); ok {
		out.Interests = v
		out.Present[ComponentInterests] = true
	}
	if v, ok := axisCompatibility(a.Traits, b.Traits, AxisCommunication); ok {
		out.Communication = v
		out.Present[ComponentCommunication] = true
	}
	if v, ok := axisCompatibility(a.Traits, b.Traits, AxisSociability); ok {
		out.Sociability = v
		out.Present[ComponentSociability] = true
	}
	if v, ok := extraversionOpenness(a.Traits, b.Traits); ok {
		out.ExtraversionOpenness = v
		out.Present[ComponentExtraversionOpenness] = true
	}

	values := map[Component]float64{
		ComponentPersonality:          out.Personality,
		ComponentInterests:            out.Interests,
		ComponentCommunication:        out.Communication,
		ComponentSociability:          out.Sociability,
		ComponentExtraversionOpenness: out.ExtraversionOpenness,
	}

	var weighted, weightSum float64
	for _, c := range componentOrder {
		if !out.Present[c] {
			continue
		}
		weighted += ComponentWeights[c] * values[c]
		weightSum += ComponentWeights[c]
	}

	composite := 0.0
	if weightSum > 0 {
		composite = weighted / weightSum
	}
	out.Score = clampScore(int(math.Round(composite * 100)))
	return out
}

// AxisValue resolves a canonical axis on a trait set.
func AxisValue(t model.Traits, axis Axis) (float64, bool) {
	var v *float64
	switch axis {
	case AxisCommunication:
		v = t.Communication
	case AxisValues:
		v = t.Values
	case AxisExtraversion:
		v = t.Extraversion
	case AxisOpenness:
		v = t.Openness
	case AxisPlanning:
		v = t.Planning
	case AxisSociability:
		v = t.Sociability
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Compatibility is the diminishing-returns similarity of two values in [0,1].
func Compatibility(a, b float64) float64 {
	diff := 1 - math.Abs(a-b)
	if diff <= 0 {
		return 0
	}
	return math.Pow(diff, compatibilityExponent)
}

func personality(a, b model.Traits) (float64, bool) {
	var weighted, weightSum float64
	for _, axis := range CanonicalAxes {
		c, ok := axisCompatibility(a, b, axis)
		if !ok {
			continue
		}
		w := AxisWeights[axis]
		weighted += w * c
		weightSum += w
	}
	if weightSum == 0 {
		return 0, false
	}
	return weighted / weightSum, true
}

func axisCompatibility(a, b model.Traits, axis Axis) (float64, bool) {
	va, okA := AxisValue(a, axis)
	vb, okB := AxisValue(b, axis)
	if !okA || !okB {
		return 0, false
	}
	return Compatibility(va, vb), true
}

func extraversionOpenness(a, b model.Traits) (float64, bool) {
	var sum float64
	var n int
	for _, axis := range []Axis{AxisExtraversion, AxisOpenness} {
		if c, ok := axisCompatibility(a, b, axis); ok {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// interests is absent only when both sides have no interests at all.
func interests(a, b []model.Interest) (float64, bool) {
	if len(a) == 0 && len(b) == 0 {
		return 0, false
	}

	byName := make(map[string]float64, len(b))
	for _, in := range b {
		byName[in.Name] = in.Score
	}

	shared := make([]string, 0)
	scoresA := make(map[string]float64, len(a))
	for _, in := range a {
		scoresA[in.Name] = in.Score
		if _, ok := byName[in.Name]; ok {
			shared = append(shared, in.Name)
		}
	}
	if len(shared) == 0 {
		return 0, true
	}
	sort.Strings(shared)

	var alignment float64
	for _, name := range shared {
		alignment += 1 - math.Abs(scoresA[name]-byName[name])
	}
	avgAlignment := alignment / float64(len(shared))

	largest := len(a)
	if len(b) > largest {
		largest = len(b)
	}
	coverage := float64(len(shared)) / float64(largest)

	return alignmentWeight*avgAlignment + coverageWeight*coverage, true
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
