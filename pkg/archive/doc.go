// Package archive persists encoded batches outside the process.
//
// A Store keeps batches by session and sequence number. MemoryStore holds
// them in memory; S3Store writes one object per batch:
//
//	<prefix>/<session>/<seq>.bin
//
// Sequence numbers are zero padded, so a prefix listing returns a session's
// batches in order. Putting the same seq again overwrites the object. The
// xxhash digest travels in object metadata and is checked again on Get.
//
// Archiver adapts a Store to session.Sink, so every committed batch is
// archived as it is produced:
//
//	store := archive.NewS3Store(archive.NewS3Client(region), bucket, "batches")
//	sink := archive.NewArchiver(store, logger, collector)
//	rec := session.New(session.Config{ID: id, Sinks: []session.Sink{sink}})
package archive
