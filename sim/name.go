package sim

import "regexp"

// A Named object carries a hierarchical name. Name elements are separated by
// dots, and each element is a CamelCase term with an optional numeric index
// like `Controller.SerDes` or `Controller.CDC[1].Producer`.
type Named interface {
	Name() string
}

var nameRegexp = regexp.MustCompile(
	`^[A-Z][a-zA-Z0-9]*(\[\d+\])*(\.[A-Z][a-zA-Z0-9]*(\[\d+\])*)*$`)

// NameMustBeValid panics if the name does not follow the hierarchical naming
// convention.
func NameMustBeValid(name string) {
	if !nameRegexp.MatchString(name) {
		panic("invalid name " + name)
	}
}
