// Package document parses HTML pages into a navigable tree.
//
// The crawler and the extractor never touch golang.org/x/net/html
// directly. They receive a *Document from a Parser and query it by id,
// class or attribute, walk sibling and child nodes, and read text
// content.
//
// Sibling and child navigation includes text nodes, so whitespace and
// bare strings between elements count as positions. The extractor relies
// on this when it reads "the node two positions after" a label.
//
// Queries are implemented with goquery selectors over the parsed tree.
package document
