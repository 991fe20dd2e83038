// Package extract turns a RateBeer beer page into a model.Record.
//
// The page layout is located structurally. The element with id "tdL" is a
// fixed anchor; the first child of its next sibling is the middle block,
// whose first two children hold the brewery information and the ratings.
// Fields are read from those blocks:
//
//	Brewery Name   text of #_brand4 in the brewery block
//	Serve in       text of the node after #modal in the brewery block
//	Style          text of the first /beerstyles/ link in the brewery block
//	Name           text of [itemprop=name] under .user-header
//	<rating label> number before "/" in each a[name="real average"]
//	<abbr label>   value next to each <abbr> in the ratings block
//	UTC timestamp  extraction time
//	Commercial Description  text of #_description3, when present
//
// Pages that redirect to another beer ("Proceed to the aliased beer")
// produce an alias record instead.
package extract
