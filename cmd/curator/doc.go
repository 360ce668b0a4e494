// Command curator runs the knowledge base pipeline and inspects its state.
package main
