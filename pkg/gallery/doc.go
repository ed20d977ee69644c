// Package gallery models the media gallery that feeds the masonry layout.
//
// A gallery is a paginated sequence of [MediaItem] values served by a
// [Source]. Three sources are provided:
//
//   - [MemorySource]: an in-memory slice, for tests and local JSON files
//   - [Client]: the gallery REST API
//   - [MongoStore]: a MongoDB collection of file documents
//
// [Feed] is the infinite-scroll state machine on top of a Source. It owns
// the loading and end-of-list flags, deduplicates pages and pushes the
// visible item sequence into a [Sink], normally a masonry.Controller.
// The feed never computes layout itself.
package gallery
