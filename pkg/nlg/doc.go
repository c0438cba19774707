/*
Package nlg implements a natural language generator based on n-gram language
models.

A Generator counts every window of Order consecutive tokens seen in its
training text, padded with start-of-chain markers and closed by an
end-of-chain marker. Text is produced one token at a time: the most recent
Order-1 tokens select the n-grams that continue them, and one of those is
drawn with probability proportional to its count (Maximum Likelihood
Estimation). When a history was never observed the whole table is used
instead, which degrades the model to a unigram (bag-of-words) model rather
than assigning zero probability to the unseen event.

Counts live in a Table. MemoryTable keeps them in a sorted slice; SQLTable
keeps them in an SQL database so that several processes can share one model.
*/
package nlg
