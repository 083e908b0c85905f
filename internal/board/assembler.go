package board

// partitionLinks splits the block's incident links into outgoing and incoming
// sets and resolves each far end against the supplied block snapshot. Edges
// whose far block no longer resolves are dropped rather than surfaced with a
// hole; the cascade on block deletion normally prevents them from existing at
// all.
func partitionLinks(blockID string, links []Link, blocks map[string]Block) (outgoing, incoming []LinkedBlock) {
	outgoing = make([]LinkedBlock, 0, len(links))
	incoming = make([]LinkedBlock, 0, len(links))
	for _, link := range links {
		switch blockID {
		case link.SourceID:
			if far, ok := blocks[link.TargetID]; ok {
				outgoing = append(outgoing, LinkedBlock{Link: link, Block: far})
			}
		case link.TargetID:
			if far, ok := blocks[link.SourceID]; ok {
				incoming = append(incoming, LinkedBlock{Link: link, Block: far})
			}
		}
	}
	return outgoing, incoming
}

// assembleThreads builds the parent/child comment tree from a flat list
// already sorted by creation time. A comment whose parent is not among the
// same block's comments is treated as a root; that covers both cross-block
// parents and replies whose parent was deleted.
func assembleThreads(comments []Comment) []*CommentThread {
	nodes := make(map[string]*CommentThread, len(comments))
	for _, comment := range comments {
		nodes[comment.ID] = &CommentThread{Comment: comment, Replies: []*CommentThread{}}
	}

	roots := make([]*CommentThread, 0, len(comments))
	for _, comment := range comments {
		node := nodes[comment.ID]
		if comment.ParentID != nil {
			if parent, ok := nodes[*comment.ParentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
