// Package hclconfig loads config.Model values from HCL files.
//
// A configuration is spread over any number of .hcl files. Each file may hold
// an app block and design blocks; unknown top-level blocks are ignored so a
// directory can be shared with other tools.
//
//	app {
//	  log_level         = "debug"
//	  snapshot_interval = "1m"
//	  bridge {
//	    url = "http://localhost:3000/socket.io/"
//	  }
//	}
//
//	design "cpu" {
//	  circuit "main" {
//	    component "g1" {
//	      factory = "AND Gate"
//	      x       = 40
//	      y       = 20
//	      port {
//	        x         = 0
//	        y         = 10
//	        direction = "input"
//	      }
//	    }
//	    wire {
//	      from = [0, 30]
//	      to   = [40, 30]
//	    }
//	  }
//	}
package hclconfig
