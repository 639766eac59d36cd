package labelstudio

import (
	"github.com/gomlx/nerprep/corpus"
	"k8s.io/klog/v2"
)

// Filter returns one example per usable task (see Task.Usable), in order.
//
// Each span label becomes an annotation with the first of its labels. Results that
// are not span labels (relations, choices, ...) are ignored, as are incomplete span labels,
// which Parse would have rejected. Unusable tasks are dropped
// silently: they are only visible as the difference between tasks and examples.
func Filter(tasks []Task) []corpus.Example {
	examples := make([]corpus.Example, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if !task.Usable() {
			klog.V(2).Infof("skipping task id=%d: %d completions", task.ID, len(task.Completions))
			continue
		}
		completion := &task.Completions[0]
		annotations := make([]corpus.Annotation, 0, len(completion.Result))
		for _, result := range completion.Result {
			if !result.IsSpanLabel() || result.Value.validate() != nil {
				continue
			}
			annotations = append(annotations, corpus.Annotation{
				Start: *result.Value.Start,
				End:   *result.Value.End,
				Label: result.Value.Labels[0],
			})
		}
		examples = append(examples, corpus.Example{
			TaskID:      task.ID,
			Text:        task.Text,
			Annotations: annotations,
		})
	}
	klog.V(1).Infof("kept %d of %d tasks", len(examples), len(tasks))
	return examples
}
