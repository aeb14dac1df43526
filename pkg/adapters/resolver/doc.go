// Package resolver binds natural-language entity mentions to graph nodes
// without calling a model, keeping resolution deterministic and cheap.
package resolver
