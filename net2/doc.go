// net2 is a collection of functions meant to supplement the capabilities
// provided by the standard "net" package.  Its TimeoutConn bounds every
// individual Read / Write with a deadline, which is how the memcache client
// imposes timeouts at the transport boundary.
package net2
