package domain

// Board is a 15x15 gomoku grid. Cells transition Empty -> Black/White
// exactly once and never revert.
type Board struct {
	cells [BoardSize][BoardSize]Color
	moves int
}

func NewBoard() *Board {
	return &Board{}
}

func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

// At returns the stone at (x, y), or Empty outside the board.
func (b *Board) At(x, y int) Color {
	if !InBounds(x, y) {
		return Empty
	}
	return b.cells[x][y]
}

// ValidateMove checks a move against the board and the current turn
// without mutating anything.
func ValidateMove(b *Board, x, y int, turn, player Color) error {
	if player != turn {
		return ErrNotYourTurn
	}
	if !InBounds(x, y) {
		return ErrOutOfBounds
	}
	if b.cells[x][y] != Empty {
		return ErrCellOccupied
	}
	return nil
}

// Place writes a pre-validated stone. It refuses to overwrite a cell;
// a non-empty cell reaching this point is an internal invariant break.
func (b *Board) Place(x, y int, color Color) error {
	if !InBounds(x, y) {
		return ErrOutOfBounds
	}
	if b.cells[x][y] != Empty {
		return ErrCellOccupied
	}
	b.cells[x][y] = color
	b.moves++
	return nil
}

// MoveCount reports the number of stones on the board.
func (b *Board) MoveCount() int {
	return b.moves
}

func (b *Board) Full() bool {
	return b.moves >= BoardSize*BoardSize
}

// Snapshot returns the board as a 2D slice for wire serialization.
// Empty cells marshal as "".
func (b *Board) Snapshot() [][]Color {
	out := make([][]Color, BoardSize)
	for x := range b.cells {
		row := make([]Color, BoardSize)
		copy(row, b.cells[x][:])
		out[x] = row
	}
	return out
}

// axes through the just-placed stone, in the order wins are reported:
// horizontal, vertical, diagonal-NE, diagonal-NW.
var winAxes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diag-NE
	{1, -1}, // diag-NW
}

// CheckWin reports whether placing color at (x, y) produced five or
// more contiguous same-color stones on any axis through that cell.
// Only the four axes through the new stone are scanned; a full-board
// pass is never needed.
func CheckWin(b *Board, x, y int, color Color) bool {
	axis, _ := WinningAxis(b, x, y, color)
	return axis >= 0
}

// WinningAxis returns the index into the fixed axis order of the first
// axis with a contiguous run >= 5 through (x, y), and the run length.
// It returns -1, 0 when the move does not win.
func WinningAxis(b *Board, x, y int, color Color) (int, int) {
	if !color.Valid() || b.At(x, y) != color {
		return -1, 0
	}
	for i, d := range winAxes {
		count := 1 // the stone at (x, y)
		// walk both directions along the axis
		for nx, ny := x+d[0], y+d[1]; InBounds(nx, ny) && b.cells[nx][ny] == color; nx, ny = nx+d[0], ny+d[1] {
			count++
		}
		for nx, ny := x-d[0], y-d[1]; InBounds(nx, ny) && b.cells[nx][ny] == color; nx, ny = nx-d[0], ny-d[1] {
			count++
		}
		if count >= ToWin {
			return i, count
		}
	}
	return -1, 0
}
