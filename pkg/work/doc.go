// Package work defines the vocabulary shared by every omnisustain package:
// work representation descriptors (Type), units of work (Operation) and the
// Sustainable wrapper admitted into a sustainer.
//
// A Type names the native execution model that produced a handle. Types are
// plain comparable values, so two descriptors for the same model are equal no
// matter where they were constructed, and they can key the converter registry
// directly.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package work
