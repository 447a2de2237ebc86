// Package terrain provides the height-field node kinds: flat and gradient
// fields, fields imported from the outside world, layered blends and the
// height output that hands the final field to terrain integration.
package terrain
