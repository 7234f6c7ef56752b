// Package services defines the shared error taxonomy and context annotations
// used by pipeline components and their consumers.
package services
