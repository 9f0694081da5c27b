// Package export turns questionnaire responses into the files handed to
// external analysis.
//
// Three exports are produced:
//
//   - [CurrentRow]: one flat row for a single mode, with the four totals and
//     a Left/Right column per statement pair.
//   - [Structured]: a nested record with the full response set and totals.
//   - [BothRow]: one flat row merging both modes, with DEF/PROG/CONS/FLEX
//     totals per mode and four columns per statement pair.
//
// Pair columns are named from the section id and the pair's 1-based position
// inside its section ("DP_3_Left", "CF_12_TOBE_Right"), never from the pair
// id. Keep that numbering stable or downstream spreadsheets break.
//
// Flat rows are rendered by [EncodeTable] and prefixed with a byte-order mark
// by [WithBOM]; structured records are rendered by [EncodeStructured].
package export
