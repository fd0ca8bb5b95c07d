// Package mirror holds the domain model of the shelter mirror: records as
// stored locally, records as returned by the listing API, the filter object
// used by stores, and the ports (Store, RemoteFetcher, BlobStore, ...) the
// reconciler and render layer depend on.
//
// Status and species values are uppercased at the boundary and compared
// case-sensitively everywhere else.
package mirror
