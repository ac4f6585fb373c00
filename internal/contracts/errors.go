package contracts

import "fmt"

// ConfigMissingError reports a required setting absent from the config document.
type ConfigMissingError struct {
	Setting string
}

func (e ConfigMissingError) Error() string {
	return fmt.Sprintf("%s must be provided in config", e.Setting)
}

// ConfigTypeError reports a setting whose value has a type outside its accepted set.
type ConfigTypeError struct {
	Setting string
	Want    string
	Got     string
}

func (e ConfigTypeError) Error() string {
	return fmt.Sprintf("%s provided is not %s (got %s)", e.Setting, e.Want, e.Got)
}

// DateParseError reports a timestamp value that matched none of the known layouts.
type DateParseError struct {
	Column string
	Value  string
}

func (e DateParseError) Error() string {
	return fmt.Sprintf("cannot parse %q in column %s as a date", e.Value, e.Column)
}
