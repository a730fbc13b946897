package session

const (
	DefaultColor = "#000000"
	DefaultSize  = 4
)

// Tool is the local tool selection. It only reaches peers as fields of outgoing
// draw and erase messages.
type Tool struct {
	Color  string
	Size   float64
	Eraser bool
}

// DefaultTool is a black 4px brush.
func DefaultTool() Tool {
	return Tool{Color: DefaultColor, Size: DefaultSize}
}

func (t Tool) style() StrokeStyle {
	return StrokeStyle{Color: t.Color, Width: t.Size}
}
