/*
Package ports defines the driven ports (interfaces) of the facet engine.

These interfaces decouple compositing from where fragments live and how they are
cached, so the engine runs the same against memory, Redis or a directory of files.

# Key Interfaces

  - FragmentResolver: Resolves variation ids to raw fragment documents.
  - CatalogProvider: Lists every category with its variations and colors.
  - AttributeStore: Persists categories; backs the registry's admin operations.
  - FragmentCache: Keeps parsed fragments keyed by variation id.
  - FragmentWatcher: Reports variation ids whose backing document changed.
  - DistributedLocker: Serializes admin edits across instances (replicas).
*/
package ports
