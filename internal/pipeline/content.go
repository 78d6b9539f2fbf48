package pipeline

import "fmt"

// Title is the video title derived from a trending topic.
func Title(topic string) string {
	return fmt.Sprintf("%s - What You Need To Know This Week!", topic)
}

// Description is the video description derived from a trending topic.
func Description(topic string) string {
	return fmt.Sprintf("In this video, we discuss %s and what it means for you. "+
		"Subscribe for more trending news and updates!", topic)
}
