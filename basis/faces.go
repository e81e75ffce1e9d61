package basis

// Faces are numbered 2*axis+side with side 0 at xi_axis = -1 and side 1 at
// xi_axis = +1. A face's own coordinates are the remaining axes in
// increasing order.

func NumFaces(dim int) int { return 2 * dim }

func FaceAxis(face int) int { return face / 2 }

func FaceSide(face int) int { return face % 2 }

// OppositeFace is the face of a neighbor that touches face.
func OppositeFace(face int) int { return face ^ 1 }

// FaceSign is the sign of the outward normal along the face axis.
func FaceSign(face int) float64 {
	if FaceSide(face) == 1 {
		return 1
	}
	return -1
}

// FaceToCell maps the face coordinates eta of face to a point in the
// reference cell.
func FaceToCell(dim, face int, eta []float64) (xi []float64) {
	var (
		axis = FaceAxis(face)
		k    int
	)
	xi = make([]float64, dim)
	for d := 0; d < dim; d++ {
		if d == axis {
			xi[d] = FaceSign(face)
			continue
		}
		xi[d] = eta[k]
		k++
	}
	return
}

// FaceToSubface maps the face coordinates of a child face onto the parent
// face. Bit k of subface selects the upper half of face coordinate k.
func FaceToSubface(eta []float64, subface int) (parent []float64) {
	parent = make([]float64, len(eta))
	for k := range eta {
		offset := -0.5
		if (subface>>k)&1 == 1 {
			offset = 0.5
		}
		parent[k] = 0.5*eta[k] + offset
	}
	return
}

// NumSubfaces is the number of children sharing one parent face.
func NumSubfaces(dim int) int { return 1 << (dim - 1) }
