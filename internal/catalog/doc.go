// Package catalog persists pipeline state for every tracked item. The JSON
// catalog on disk is the single source of truth; phase flags record which
// pipeline stages have completed, and a validator demotes flags whose
// backing evidence has gone missing so the pipeline redoes the work.
package catalog
