// Package goldprice defines the domain types and collaborator interfaces shared
// by the fetch, extract, notify and watch pipeline.
package goldprice
