// Package dispatch runs one operation against one cluster and turns the
// outcome into a Result.
//
// Every request goes through the same steps: resolve the cluster profile,
// acquire a client (resolving authentication only when a new client must be
// built), look up the operation, check backend version compatibility, bind
// and validate the arguments, invoke. Any failure along the way becomes a
// Failure tagged with a Kind; panics inside operations are recovered.
package dispatch
