// Package validate provides composable input validation.
//
// Each field is checked by an ordered list of Rule predicates. Check reports
// the first failing rule per field and collects failures across all fields:
//
//	err := validate.Check(
//		validate.Field{Name: "name", Value: req.Name, Rules: []validate.Rule{validate.Required(), validate.MinLength(4)}},
//		validate.Field{Name: "email", Value: req.Email, Rules: []validate.Rule{validate.Required(), validate.Email()}},
//	)
//	var fieldErrs validate.Errors
//	if errors.As(err, &fieldErrs) { ... }
package validate
