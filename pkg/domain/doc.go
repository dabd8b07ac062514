/*
Package domain contains the core models of the facet engine.

It defines what an avatar is made of and the errors every adapter agrees on. This
package is kept pure and free of I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Category: An attribute (eyes, mouth...) with its variations and palette.
  - Variation: A single SVG fragment belonging to a category.
  - Layer: One variation placed in a composite, with an optional color override.
  - CompositeResult: The merged SVG and the layers that produced it.
  - LifecycleHooks: Callbacks fired on compose, resolve and invalidate.
*/
package domain
