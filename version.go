package xlcrypto

// Version is the library release.
const Version = "0.2.1"

// VersionDate is the release date of Version.
const VersionDate = "2017-08-01"
