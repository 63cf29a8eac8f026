package fseries

import "fmt"

// Block is one Fourier coefficient set. The six slices share length N and
// index harmonics 1..N from position 0.
type Block struct {
	Header string    `json:"header,omitempty"`
	AX     []float64 `json:"a_x"`
	BX     []float64 `json:"b_x"`
	AY     []float64 `json:"a_y"`
	BY     []float64 `json:"b_y"`
	AZ     []float64 `json:"a_z"`
	BZ     []float64 `json:"b_z"`
}

// Row is one harmonic: a_x b_x a_y b_y a_z b_z.
type Row [6]float64

// NewBlock builds a block from coefficient rows.
func NewBlock(header string, rows ...Row) Block {
	b := Block{Header: header}
	for _, r := range rows {
		b.appendRow(r)
	}
	return b
}

func (b *Block) appendRow(r Row) {
	b.AX = append(b.AX, r[0])
	b.BX = append(b.BX, r[1])
	b.AY = append(b.AY, r[2])
	b.BY = append(b.BY, r[3])
	b.AZ = append(b.AZ, r[4])
	b.BZ = append(b.BZ, r[5])
}

// Harmonics returns N, the number of coefficient rows.
func (b Block) Harmonics() int {
	return len(b.AX)
}

// Row returns harmonic j (1-based) as a row.
func (b Block) Row(j int) Row {
	i := j - 1
	return Row{b.AX[i], b.BX[i], b.AY[i], b.BY[i], b.AZ[i], b.BZ[i]}
}

// Validate checks that the block has at least one harmonic and that all six
// coefficient slices agree in length.
func (b Block) Validate() error {
	n := len(b.AX)
	if n == 0 {
		return &ParseError{Message: fmt.Sprintf("block %q has no harmonics", b.Header)}
	}
	lens := [6]int{len(b.AX), len(b.BX), len(b.AY), len(b.BY), len(b.AZ), len(b.BZ)}
	for _, l := range lens {
		if l != n {
			return &ParseError{Message: fmt.Sprintf("block %q has inconsistent coefficient lengths %v", b.Header, lens)}
		}
	}
	return nil
}
