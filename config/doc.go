// Package config loads the layered configuration store.
//
// A store is assembled from up to four layer files, highest precedence
// first:
//
//  1. project user layer   <dir>/<app>.config.user.<ext>
//  2. project layer        <dir>/<app>.config.<ext>
//  3. global user layer    <global>/<app>.config.user.<ext>
//  4. global layer         <global>/<app>.config.<ext>
//
// The project directory is the first directory of the search path that holds
// a layer file. The search path is <PREFIX>_CONFIG_PATH followed by the
// working directory and its ancestors. The global directory defaults to
// [pkg.ConfigDir]. Each extension may be yaml, yml, json, or toml.
//
// A layer document looks like:
//
//	profiles:
//	  lpar1:
//	    properties:
//	      host: example.com
//	    secure: [password]
//	    profiles:
//	      zosmf:
//	        type: zosmf
//	        properties:
//	          port: 443
//	defaults:
//	  zosmf: lpar1.zosmf
//	cli:
//	  log-level: debug
//
// Layers are merged with higher layers winning key by key.
package config
