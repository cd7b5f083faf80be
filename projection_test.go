package olympe

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func orthoProjector() *Projector {
	return &Projector{Orientation: OrientationOrthogonal, TileWidth: 32, TileHeight: 32}
}

func isoProjector() *Projector {
	return &Projector{Orientation: OrientationIsometric, TileWidth: 64, TileHeight: 32}
}

func TestOrthoObjectToWorld(t *testing.T) {
	p := orthoProjector()
	wx, wy := p.ObjectToWorld(96, 64, 0, 0)
	if !approxEqual(wx, 96, epsilon) || !approxEqual(wy, 64, epsilon) {
		t.Errorf("ObjectToWorld(96,64) = (%v,%v), want (96,64)", wx, wy)
	}
}

func TestIsoProjectionFormula(t *testing.T) {
	p := isoProjector()
	// Tile (2, 1): screen = ((2-1)*32, (2+1)*16) = (32, 48).
	wx, wy := p.TileToWorld(2, 1)
	if !approxEqual(wx, 32, epsilon) || !approxEqual(wy, 48, epsilon) {
		t.Errorf("TileToWorld(2,1) = (%v,%v), want (32,48)", wx, wy)
	}
}

func TestIsoDepthIncreasesAlongDiagonal(t *testing.T) {
	p := isoProjector()
	// Along the X+Y diagonal the projected Y strictly increases.
	_, prevY := p.TileToWorld(0, 0)
	for i := 1; i < 10; i++ {
		_, y := p.TileToWorld(float64(i), float64(i))
		if y <= prevY {
			t.Fatalf("diagonal step %d: y=%v not greater than %v", i, y, prevY)
		}
		prevY = y
	}
}

func TestRoundTripOrthogonal(t *testing.T) {
	p := orthoProjector()
	p.OffsetX, p.OffsetY = 10, -5
	for _, pt := range [][2]float64{{0, 0}, {100, 200}, {-50, 33.5}, {1800, 900}} {
		wx, wy := p.ObjectToWorld(pt[0], pt[1], 3, 7)
		px, py := p.WorldToObject(wx, wy, 3, 7)
		if !approxEqual(px, pt[0], 1e-6) || !approxEqual(py, pt[1], 1e-6) {
			t.Errorf("roundtrip(%v) = (%v,%v)", pt, px, py)
		}
	}
}

func TestRoundTripIsometric(t *testing.T) {
	p := isoProjector()
	p.ChunkOriginX, p.ChunkOriginY = -4, -8
	for _, pt := range [][2]float64{{0, 0}, {1800, 900}, {-64, 128}} {
		wx, wy := p.ObjectToWorld(pt[0], pt[1], 0, 0)
		px, py := p.WorldToObject(wx, wy, 0, 0)
		if !approxEqual(px, pt[0], 1e-6) || !approxEqual(py, pt[1], 1e-6) {
			t.Errorf("roundtrip(%v) = (%v,%v)", pt, px, py)
		}
	}
}

func TestRoundTripWithYFlip(t *testing.T) {
	p := orthoProjector()
	p.RenderOrder = RenderLeftUp
	wx, wy := p.ObjectToWorld(64, 96, 0, 0)
	if !approxEqual(wy, -96, epsilon) {
		t.Errorf("left-up flip: world y = %v, want -96", wy)
	}
	px, py := p.WorldToObject(wx, wy, 0, 0)
	if !approxEqual(px, 64, 1e-6) || !approxEqual(py, 96, 1e-6) {
		t.Errorf("flip roundtrip = (%v,%v), want (64,96)", px, py)
	}
}

func TestChunkOriginShift(t *testing.T) {
	p := orthoProjector()
	p.ChunkOriginX, p.ChunkOriginY = -16, -16
	// Pixel (0,0) sits 16 tiles right and down of the chunk origin.
	wx, wy := p.ObjectToWorld(0, 0, 0, 0)
	if !approxEqual(wx, 16*32, epsilon) || !approxEqual(wy, 16*32, epsilon) {
		t.Errorf("chunk shift: (%v,%v), want (512,512)", wx, wy)
	}
}

func TestWorldToTileInverse(t *testing.T) {
	for _, p := range []*Projector{orthoProjector(), isoProjector()} {
		for tx := -3.0; tx <= 3; tx++ {
			for ty := -3.0; ty <= 3; ty++ {
				wx, wy := p.TileToWorld(tx, ty)
				gx, gy := p.WorldToTile(wx, wy)
				if !approxEqual(gx, tx, 1e-6) || !approxEqual(gy, ty, 1e-6) {
					t.Fatalf("orientation %d: WorldToTile(TileToWorld(%v,%v)) = (%v,%v)",
						p.Orientation, tx, ty, gx, gy)
				}
			}
		}
	}
}

func TestHexProjectionVariants(t *testing.T) {
	flat := &Projector{Orientation: OrientationHexagonal, TileWidth: 32, TileHeight: 28, StaggerAxis: "x"}
	pointy := &Projector{Orientation: OrientationHexagonal, TileWidth: 32, TileHeight: 28, StaggerAxis: "y"}

	fx, _ := flat.TileToWorld(2, 0)
	if !approxEqual(fx, 2*32*0.75, epsilon) {
		t.Errorf("flat-top x = %v, want %v", fx, 2*32*0.75)
	}
	_, py := pointy.TileToWorld(0, 2)
	if !approxEqual(py, 2*28*0.75, epsilon) {
		t.Errorf("pointy-top y = %v, want %v", py, 2*28*0.75)
	}
}
