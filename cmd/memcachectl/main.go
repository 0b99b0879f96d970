// memcachectl issues memcache commands against a sharded server pool.
//
// The pool is configured with flags, MEMCACHECTL_* environment variables, or
// a .env / .env.local file in the working directory, e.g.
//
//	MEMCACHECTL_SERVERS=cache01:11211,cache02:11211 memcachectl get user:42
package main

func main() {
	Execute()
}
