// A memcache client library which shards keys over a fixed pool of servers,
// and transparently serializes values of arbitrary type.
//
// Implementation note: this client uses memcached's ascii protocol.  See
// https://github.com/memcached/memcached/blob/master/doc/protocol.txt for
// additional details.  Every value is stored as a (Tag, payload) pair; the
// tag travels in the item's flags, so items are self describing.
package memcache
