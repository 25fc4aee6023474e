// Package layout paginates report blocks onto fixed-height pages.
//
// A layout run owns one core.Surface. Blocks are measured on the surface,
// placed greedily in their original order, and never split: a block that
// does not fit on the current page moves whole to a new page. Every
// mutation is followed by a fresh measurement, because inserting a block
// can change the height of the column it lands in.
//
// Footnote groups go into a separate footnote zone at the bottom of each
// page. The zone shares the page budget with the content column.
package layout
