package wmath

// Affine transforms, used to map pixel positions between an
// exposure's native frame and the shared patch frame.

import(
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1*sinTheta, 0,    sinTheta, cosTheta, 0})
}

func (m1 Aff3)Scale(sx, sy float64) Aff3 {
	return m1.Mult(Aff3{sx, 0, 0,   0, sy, 0})
}

func RotateAbout(thetaDeg, x, y float64) Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return Identity().Translate(x, y).Rotate(thetaDeg).Translate(-1*x, -1*y)
}

// Apply maps a position through the transform.
func (m Aff3)Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert returns the inverse transform, by padding out to a full 3x3
// and letting gonum do the work. Errors if the linear part is
// singular, which for a sane WCS means the config is broken.
func (m Aff3)Invert() (Aff3, error) {
	a := mat.NewDense(3, 3, []float64{
		m[0], m[1], m[2],
		m[3], m[4], m[5],
		0, 0, 1,
	})

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return Identity(), fmt.Errorf("affine not invertible: %v", err)
	}

	return Aff3{
		inv.At(0,0), inv.At(0,1), inv.At(0,2),
		inv.At(1,0), inv.At(1,1), inv.At(1,2),
	}, nil
}

// Det of the linear part; its magnitude is the area scale factor,
// which photometric rescaling across differing pixel scales needs.
func (m Aff3)Det() float64 {
	return m[0]*m[4] - m[1]*m[3]
}

func (m Aff3)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[0], m[1], m[2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3], m[4], m[5])
	return str
}
