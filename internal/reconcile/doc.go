// Package reconcile decides what a printer-state observation should trigger.
//
// Decide is a pure function over the previous record and the incoming Event.
// It returns a Decision (a local "print complete" notification, a companion
// update, both, or neither) together with the record that should replace the
// stored one. Engine wraps Decide with the state store and a per-printer lock
// so that push, stream and poll observations for the same printer are
// evaluated one at a time, then hands the Decision to a Dispatcher.
package reconcile
