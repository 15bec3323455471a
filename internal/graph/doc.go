// Package graph holds the arena storage behind a flow: resources and steps
// in dense ordered slices, looked up through id indexes, plus the mutation
// primitives, the validator, the cycle detector and the frontier query the
// executor uses.
//
// Two removal semantics coexist on purpose:
//
//   - RemoveResource deletes every step acting on the resource.
//   - RemoveStep keeps the dependents and only strips the removed id from
//     their dependency lists.
package graph
