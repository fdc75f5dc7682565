package pluck

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Excitation source kinds. The order matches the mix-level parameter indices
// (ParamWhiteMix..ParamWarpMix), so kind k is scaled by parameter k.
const (
	srcWhite = iota
	srcPerlin
	srcSimplex
	srcValue
	srcWorley
	srcFbm
	srcBillow
	srcRidged
	srcHybrid
	srcWarp

	numSources
)

const (
	fractalOctaves    = 4
	fractalLacunarity = 2.0
	fractalGain       = 0.5
)

// fieldSet owns the excitation generators. White noise draws from a seeded
// generator; the coherent fields are pure functions of a 2D point, so equal
// seeds give identical signals for identical note sequences.
type fieldSet struct {
	rng     *rand.Rand
	perlin  *perlin.Perlin
	simplex opensimplex.Noise
	lattice uint32
}

func newFieldSet(seed int64) *fieldSet {
	return &fieldSet{
		rng:     rand.New(rand.NewSource(seed)),
		perlin:  perlin.NewPerlin(2, 2, 3, seed),
		simplex: opensimplex.New(seed),
		lattice: uint32(seed)*2654435761 + 1,
	}
}

// white returns a fresh uniform sample in [-1, 1].
func (f *fieldSet) white() float32 {
	return float32(f.rng.Float64()*2.0 - 1.0)
}

// eval evaluates one coherent field kind at a 2D point. srcWhite is handled
// by the caller since it is not a function of position.
func (f *fieldSet) eval(kind int, x, y float64) float32 {
	switch kind {
	case srcPerlin:
		return float32(f.perlin.Noise2D(x, y))
	case srcSimplex:
		return float32(f.simplex.Eval2(x, y))
	case srcValue:
		return float32(f.valueNoise(x, y))
	case srcWorley:
		return float32(f.worleyNoise(x, y))
	case srcFbm:
		return float32(f.fbm(x, y))
	case srcBillow:
		return float32(f.billow(x, y))
	case srcRidged:
		return float32(f.ridged(x, y))
	case srcHybrid:
		return float32(f.hybrid(x, y))
	case srcWarp:
		wx := f.simplex.Eval2(x+5.2, y+1.3)
		wy := f.simplex.Eval2(x+9.7, y+4.1)
		return float32(f.simplex.Eval2(x+wx, y+wy))
	default:
		return 0
	}
}

// fbm is a plain fractal Brownian sum of Perlin octaves.
func (f *fieldSet) fbm(x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	norm := 0.0
	for o := 0; o < fractalOctaves; o++ {
		sum += amp * f.perlin.Noise2D(x, y)
		norm += amp
		amp *= fractalGain
		x *= fractalLacunarity
		y *= fractalLacunarity
	}
	return sum / norm
}

// billow folds each octave around zero, giving a puffy, always-positive base
// recentred to [-1, 1].
func (f *fieldSet) billow(x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	norm := 0.0
	for o := 0; o < fractalOctaves; o++ {
		sum += amp * (2.0*math.Abs(f.perlin.Noise2D(x, y)) - 1.0)
		norm += amp
		amp *= fractalGain
		x *= fractalLacunarity
		y *= fractalLacunarity
	}
	return sum / norm
}

// ridged inverts the folded octaves so crests become sharp ridges.
func (f *fieldSet) ridged(x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	norm := 0.0
	for o := 0; o < fractalOctaves; o++ {
		r := 1.0 - math.Abs(f.perlin.Noise2D(x, y))
		sum += amp * r * r
		norm += amp
		amp *= fractalGain
		x *= fractalLacunarity
		y *= fractalLacunarity
	}
	return 2.0*(sum/norm) - 1.0
}

// hybrid weights each successive octave by the running product, so rough
// regions stay rough and smooth regions stay smooth.
func (f *fieldSet) hybrid(x, y float64) float64 {
	weight := 1.0
	signal := f.perlin.Noise2D(x, y)
	sum := signal
	norm := 1.0
	amp := fractalGain
	for o := 1; o < fractalOctaves; o++ {
		if weight > 1.0 {
			weight = 1.0
		}
		x *= fractalLacunarity
		y *= fractalLacunarity
		signal = f.perlin.Noise2D(x, y)
		sum += weight * amp * signal
		norm += amp
		weight *= signal + 0.5
		if weight < 0 {
			weight = 0
		}
		amp *= fractalGain
	}
	return sum / norm
}

// valueNoise interpolates hashed lattice values with a smoothstep blend.
// Neither noise dependency ships a value-noise variant, so the lattice is
// hashed inline.
func (f *fieldSet) valueNoise(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	tx := smoothstep(x - x0)
	ty := smoothstep(y - y0)
	ix0, iy0 := int32(x0), int32(y0)

	v00 := f.latticeValue(ix0, iy0)
	v10 := f.latticeValue(ix0+1, iy0)
	v01 := f.latticeValue(ix0, iy0+1)
	v11 := f.latticeValue(ix0+1, iy0+1)

	a := v00 + tx*(v10-v00)
	b := v01 + tx*(v11-v01)
	return a + ty*(b-a)
}

// worleyNoise returns the distance to the nearest jittered cell point,
// rescaled to roughly [-1, 1].
func (f *fieldSet) worleyNoise(x, y float64) float64 {
	cx := int32(math.Floor(x))
	cy := int32(math.Floor(y))
	best := math.MaxFloat64
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			ix, iy := cx+dx, cy+dy
			px := float64(ix) + 0.5 + 0.5*f.latticeValue(ix, iy)
			py := float64(iy) + 0.5 + 0.5*f.latticeValue(iy, ix^0x55)
			ddx := x - px
			ddy := y - py
			d := ddx*ddx + ddy*ddy
			if d < best {
				best = d
			}
		}
	}
	return 2.0*math.Min(math.Sqrt(best), 1.0) - 1.0
}

// latticeValue hashes integer lattice coordinates to a value in [-1, 1].
func (f *fieldSet) latticeValue(ix, iy int32) float64 {
	h := uint32(ix)*374761393 + uint32(iy)*668265263 + f.lattice
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h)/float64(math.MaxUint32)*2.0 - 1.0
}

func smoothstep(t float64) float64 {
	return t * t * (3.0 - 2.0*t)
}
