// Package api exposes validation, scoring and indexing over HTTP.
//
//	POST /v1/validations  {"video_id": "..."}                       -> verdict
//	POST /v1/scores       {"candidate", "reference", "window"}      -> score result
//	POST /v1/indices      {"video_id": "..."}                       -> ledger rows
//	GET  /v1/indices      ?page=1&page_size=50                      -> index listing
package api
