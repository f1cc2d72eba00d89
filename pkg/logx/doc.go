/*
Package logx provides structured logging for cryptofs using zerolog.

It wraps zerolog with a package level logger initialized once via
logx.Init, component loggers carved off
with WithComponent, and a handful of domain-specific helpers
(WithRepo, WithTxn, WithEid) that attach the identifiers this codebase
passes around everywhere.

Subsystem constructors do not take a logger: each subsystem derives its
own from the package-level Logger through WithComponent when it logs, so
output goes wherever the last Init pointed it.
*/
package logx
