package editor

// Option is one entry of a selection list. Placeholder entries are disabled
// and never count as a selection.
type Option[T comparable] struct {
	Value    T
	Label    string
	Disabled bool
}

// Picker is a single-choice list such as the department or assignee
// selector of the edit form.
type Picker[T comparable] struct {
	options  []Option[T]
	selected int
	none     T
	valid    func(T) bool
}

func newPicker[T comparable](placeholder string, none T, valid func(T) bool) *Picker[T] {
	p := &Picker[T]{none: none, valid: valid}
	p.placeholder(placeholder)
	return p
}

// Options returns the entries in display order.
func (p *Picker[T]) Options() []Option[T] {
	out := make([]Option[T], len(p.options))
	copy(out, p.options)
	return out
}

// Index returns the selected row, or -1.
func (p *Picker[T]) Index() int {
	return p.selected
}

// Value returns the selected value and whether it is a valid choice.
func (p *Picker[T]) Value() (T, bool) {
	if p.selected < 0 || p.selected >= len(p.options) {
		return p.none, false
	}
	opt := p.options[p.selected]
	if opt.Disabled || !p.valid(opt.Value) {
		return p.none, false
	}
	return opt.Value, true
}

// Label returns the text of the selected row, placeholder included.
func (p *Picker[T]) Label() string {
	if p.selected < 0 || p.selected >= len(p.options) {
		return ""
	}
	return p.options[p.selected].Label
}

// Placeholder reports whether the list holds only a placeholder entry.
func (p *Picker[T]) Placeholder() bool {
	return len(p.options) == 1 && p.options[0].Disabled
}

// Select picks the option carrying v. It reports false and keeps the
// current selection when v is not a valid choice.
func (p *Picker[T]) Select(v T) bool {
	for i, opt := range p.options {
		if opt.Value == v && !opt.Disabled && p.valid(v) {
			p.selected = i
			return true
		}
	}
	return false
}

// set replaces the options. The preferred value is selected when present,
// otherwise the first valid option is.
func (p *Picker[T]) set(options []Option[T], prefer T) {
	p.options = options
	p.selected = -1
	if p.Select(prefer) {
		return
	}
	for i, opt := range options {
		if !opt.Disabled && p.valid(opt.Value) {
			p.selected = i
			return
		}
	}
}

func (p *Picker[T]) placeholder(text string) {
	p.options = []Option[T]{{Value: p.none, Label: text, Disabled: true}}
	p.selected = 0
}
