package mcpserver

// PageFormatContract describes how city names become slugs, file names and
// generated pages, so LLM consumers can predict what provisioning will do.
const PageFormatContract = `# City Page Format

Every city record owns exactly one generated page file.

## Naming

- Names may contain letters, digits, spaces and the punctuation - ' .
  Anything else is rejected.
- Names are stored with the first letter upper-cased and the rest lower-cased:
  "new DELHI" becomes "New delhi".
- The full slug is the category prefix plus the lower-kebab name:
  bike-rent-in-, taxi-service-in-, tour-packages-in-.
- The short slug keeps the first 10 letters and digits of the name. Two cities
  may share one; route entries then carry shortSlugShared.
- The page file is {Name letters and digits}{Suffix}.jsx in the category
  directory, e.g. taxi-cities-pages/PuneTaxiPage.jsx.

## Generated file

` + "```" + `
/* ---
generator: citypages
category: taxi
name: Pune
slug: taxi-service-in-pune
component: PuneTaxiPage
--- */
` + "```" + `

The header marks the file as generated. Files without it are never touched
by reconciliation. Editing a generated file by hand is pointless: the next
reconcile pass restores it.
`
