// Package function resolves host functions to managed static methods and
// invokes them.
//
// A function's language body names the method:
//
//	com.example.Foo.bar
//	com.example.Foo.bar(int, java.lang.String)
//
// Parameter and return types default to the mappings of the catalog's SQL
// types. An explicit parameter list replaces individual defaults with
// compatible alternatives, for example a boxed or text form. Trigger
// functions take a single TriggerData and return nothing.
//
// Resolved functions are cached by function identifier until Clear.
package function
