// Package definition decodes and queries the declarative command tree.
//
// A tree is a YAML document whose root is a group [Command]. Groups hold
// children; commands name a handler, or a chain of handlers, together with
// the options, positionals and profile types they accept:
//
//	name: app
//	type: group
//	children:
//	  - name: get
//	    type: command
//	    handler: builtin:echo
//	    options:
//	      - name: host
//	        aliases: [H]
//	        type: string
//	    profile:
//	      optional: [conn]
//
// [Parse] adds the universal options to every command, such as
// --response-format-json and --<type>-profile for each declared profile
// type. [Command.ParseArgs] turns the remaining command-line tokens of one
// command into an [args.Set].
package definition
