package graph

// End is the terminal marker. It is reachable from every node and is not a
// node itself.
const End = "__end__"

// Result is what a node returns. The set is closed: Next or Command.
type Result interface{ isResult() }

// Next merges Update and follows the node's configured edge.
type Next struct {
	Update Update
}

func (Next) isResult() {}

// Command merges Update and transfers control to Goto.
type Command struct {
	Goto   string
	Update Update
}

func (Command) isResult() {}

// Continue is shorthand for Next{Update: u}.
func Continue(u Update) Result { return Next{Update: u} }

// Goto is shorthand for Command{Goto: node, Update: u}.
func Goto(node string, u Update) Result { return Command{Goto: node, Update: u} }
