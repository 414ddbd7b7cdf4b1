// Package logging sets up structured JSON logging for vaultsearch.
//
// Logs go to a size-rotated file under ~/.vaultsearch/logs/ and, with
// --debug, are mirrored to stderr. Query text is only ever logged at debug
// level.
package logging
