// Package util holds small parsing helpers shared by config structs.
package util
