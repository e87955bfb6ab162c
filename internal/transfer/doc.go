// Package transfer moves files between the local filesystem and a SharePoint
// document library. Uploads below the small-file threshold go out in a single
// PUT; larger files are streamed through a Graph upload session in aligned,
// strictly sequential byte ranges. Downloads walk a remote folder tree into a
// pre-order manifest and fetch the files with a bounded worker pool.
//
// Every operation takes an immutable Session (drive scope plus the API
// surface holding the bearer token) and a context.Context. Per-file outcomes
// are reported as Result values; only failures that abort a whole operation
// are returned as errors.
package transfer
