/*
Package session drives iterative code review conversations.

A client submits code to a session repeatedly. Each submission runs the
review graph once, carrying the iteration counter forward from the previous
submission, and reports whether the quality score met the threshold.

Submissions to the same session are serialised with reference-counted local
locks and, when several replicas share a store, an optional distributed lock.
*/
package session
