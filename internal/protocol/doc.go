// Package protocol implements the line-oriented client command language.
//
//	| Command | Syntax          | Success          | Failure             |
//	|---------|-----------------|------------------|---------------------|
//	| Query   | q <key>         | <value>          | not found           |
//	| Add     | a <key> <value> | added            | already in database |
//	| Delete  | d <key>         | removed          | not in database     |
//	| Batch   | f <path>        | file processed   | bad file name       |
//
// Empty, unknown or malformed lines, and tokens longer than the configured
// limit, are answered with "ill-formed command". The connection stays open
// after any reply.
//
// A batch file is read line by line and each line is executed as if a
// client had sent it; the per-line replies are discarded. Batch files may
// include other batch files up to Config.MaxBatchDepth levels.
//
// LineReader frames both the wire stream and batch files. A line longer than
// its limit is consumed whole and reported as ErrLineTooLong; in a batch file
// such a line is skipped.
package protocol
