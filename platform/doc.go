// Package platform talks to the video platform through yt-dlp: it reads
// video metadata (duration above all, which drives window sampling) and
// extracts audio for a time window so it can be transcribed again.
//
// yt-dlp runs as a subprocess via the process package, so tests swap in a
// process.Runner fake. CachedMetadata keeps metadata in redis because it
// rarely changes and a yt-dlp metadata call costs seconds.
package platform
