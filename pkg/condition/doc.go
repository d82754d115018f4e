/*
Package condition evaluates edge conditions against a run's state.

A condition names a state key, an operator and a comparison value. Values are
classified into kinds (missing, null, bool, number, text, list, map) and:

  - eq/ne use value equality; values of different kinds are unequal.
  - lt/lte/gt/gte are defined only within the same kind (number, text, bool, list).
  - length_* compare the character count of the value's textual form with the
    comparison value coerced to an integer.

Anything that cannot be compared evaluates to false; Evaluate never returns an error.
*/
package condition
