// Package ledger records which content-addressed chunks were published for
// which video window.
//
// One Row is written per published chunk: the chunk start, the CID of its
// segment array in the content store and a truncated text preview used by
// the knowledge-base listing. The validator reads rows back by video and
// window overlap.
//
// Two Store implementations exist:
//
//   - GormStore: gorm over sqlite, schema managed by golang-migrate with
//     embedded SQL. Used for single-node deployments and tests.
//   - PostgresStore: pgx connection pool, schema created on startup.
package ledger
