// Package logtree pretty-prints nested, indented status output for multi-step
// programs, including the output of child processes.
//
// A Tree owns the indentation state and the writer lines end up on. Sections
// open an indent level and always close it again, commands run through the
// tree have their stdout and stderr relayed live, one level below the "$"
// line that announced them:
//
//	t := logtree.New(os.Stdout)
//	err := t.Note(ctx, "Running task...", func(ctx context.Context) error {
//		_, err := t.Run(ctx, []string{"task", "--verbose"})
//		return err
//	})
//
// prints
//
//	* Running task...
//	  $ task --verbose
//	    [output from task]
//
// Capture additionally swaps os.Stdout and os.Stderr for the duration of a
// function so that plain fmt.Println calls are indented too.
package logtree
