// Package catalog holds the title rules of the marketplace catalog:
// category classification with per-category price floors, the vehicle and
// ignore keyword filters, price parsing and display-name normalization.
//
// All rule tables are plain values handed to the constructors. A Classifier
// or Normalizer never consults package-level state after construction, so
// differently configured instances can be used side by side.
package catalog
