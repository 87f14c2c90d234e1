package timecodec

// Field is a spin value holding minutes in [0, MaxMinutes]. The zero value is 00:00.
type Field struct {
	value int
}

// NewField returns a field set to minutes, clamped.
func NewField(minutes int) Field {
	return Field{value: Clamp(minutes)}
}

// Value returns the minutes held.
func (f Field) Value() int {
	return f.value
}

// SetValue stores minutes, clamped.
func (f *Field) SetValue(minutes int) {
	f.value = Clamp(minutes)
}

// Text renders the current value.
func (f Field) Text() string {
	return Encode(f.value)
}

// SetText decodes text into the field. On failure the previous value is kept
// and false is returned.
func (f *Field) SetText(text string) bool {
	m, err := Decode(text)
	if err != nil {
		return false
	}
	f.value = m
	return true
}

// Step moves the field by n increments of StepMinutes.
func (f *Field) Step(n int) {
	f.value = Clamp(f.value + n*StepMinutes)
}
