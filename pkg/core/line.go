package core

// Origin tags where an emitted line came from.
type Origin string

const (
	OriginPrint  Origin = "print"  // Println, Printf, Tree.Stdout and redirected os.Stdout
	OriginNote   Origin = "note"   // section headers: "* ", "! ", "$ "
	OriginStdout Origin = "stdout" // relayed from a child's stdout
	OriginStderr Origin = "stderr" // a child's stderr, Tree.Stderr and redirected os.Stderr
)

// Line represents a single emitted line of indented output.
type Line struct {
	Origin   Origin `json:"origin"`
	Depth    int    `json:"depth"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	Text     string `json:"text"`
}

// Observer receives every line a tree emits, after it has been written.
type Observer interface {
	Observe(Line)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Line)

func (f ObserverFunc) Observe(l Line) { f(l) }
