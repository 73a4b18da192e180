// Package deps reports whether the external binaries shotpipe can use are
// installed. Missing optional binaries degrade features instead of failing.
package deps
