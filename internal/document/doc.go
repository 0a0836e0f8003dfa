// Package document reads, writes and assembles the portable macro document.
//
// The portable document is the JSON file that travels between
// environments:
//
//	{"Macros": [{"Name": ..., "Folder": {...}, "MacroInstructions": [...]}]}
//
// It carries only natural keys. Ids assigned by the source environment
// are dropped on retrieve; the target assigns its own on deploy.
package document
