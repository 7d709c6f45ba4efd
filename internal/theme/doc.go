// Package theme owns the dashboard's light/dark preference.
// A Controller resolves the persisted value from an origin-scoped store,
// mirrors it onto the document root as a data-theme attribute, and flips it
// on Toggle. The package also bundles the stylesheets that key off that
// attribute and can hot-reload user overrides from ~/.config/deeptrace/themes/.
package theme
